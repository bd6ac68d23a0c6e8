package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/utils"

	"github.com/joho/godotenv"
)

func main() {

	keygenMode := flag.Bool("keygen", false, "generate an ed25519 keypair and exit")

	flag.Parse()

	if *keygenMode {

		publicKey, privateKey, err := cryptography.GenerateKeyPair()

		if err != nil {

			fmt.Fprintf(os.Stderr, "failed to generate keypair: %v\n", err)

			os.Exit(1)

		}

		fmt.Printf("PUBLIC_KEY (base58): %s\n", publicKey)
		fmt.Printf("PRIVATE_KEY (base64 PKCS8): %s\n", privateKey)

		return

	}

	// Optional .env next to the binary; real env vars win over it.
	_ = godotenv.Load()

	if err := globals.LoadConfigs(); err != nil {

		utils.LogWithTime(fmt.Sprintf("Failed to load configs: %v", err), utils.RED_COLOR)

		os.Exit(1)

	}

	utils.PrintBanner()

	stopSignals := make(chan os.Signal, 1)

	signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)

	go func() {

		<-stopSignals

		utils.GracefulShutdown()

	}()

	RunStakeQuorumNode()

}
