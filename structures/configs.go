package structures

type NodeLevelConfig struct {
	PublicKey          string `json:"PUBLIC_KEY"`
	PrivateKey         string `json:"PRIVATE_KEY"`
	Interface          string `json:"INTERFACE"`
	Port               int    `json:"PORT"`
	WebSocketInterface string `json:"WEBSOCKET_INTERFACE"`
	WebSocketPort      int    `json:"WEBSOCKET_PORT"`
	ExposedUrl         string `json:"EXPOSED_URL"`
	ExposedWssUrl      string `json:"EXPOSED_WSS_URL"`
}
