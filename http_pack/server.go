package http_pack

import (
	"fmt"
	"strconv"

	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/http_pack/routes"
	"github.com/stakequorum/stakequorum-core/metrics_pack"
	"github.com/stakequorum/stakequorum-core/utils"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

func createRouter() fasthttp.RequestHandler {

	r := router.New()

	// Default API routes
	r.GET("/task/{index}", routes.GetTaskByIndex)
	r.GET("/aggregated_result/{index}", routes.GetAggregatedResultByIndex)
	r.GET("/finalized_result/{kind}", routes.GetFinalizedResultByKind)
	r.GET("/validators", routes.GetValidators)
	r.GET("/node_info", routes.GetNodeInfo)
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(metrics_pack.REGISTRY, promhttp.HandlerOpts{})))

	// Controller-signed: publish a task to the validator set
	r.POST("/create_task", routes.CreateTask)
	// Validator-signed response submission (same checks as the ws route)
	r.POST("/submit_response", routes.SubmitResponse)
	// Challenger-signed dispute against a finalized task
	r.POST("/challenge", routes.ChallengeTask)

	// Registry management - register/add_stake/slash are controller-signed,
	// deregistration is signed by the leaving validator itself
	r.POST("/registry/register_validator", routes.RegisterValidator)
	r.POST("/registry/add_stake", routes.AddStake)
	r.POST("/registry/slash_validator", routes.SlashValidator)
	r.POST("/registry/deregister_validator", routes.DeregisterValidator)

	return r.Handler
}

func CreateHTTPServer() {

	serverAddr := globals.CONFIGURATION.Interface + ":" + strconv.Itoa(globals.CONFIGURATION.Port)

	utils.LogWithTime(fmt.Sprintf("Server is starting at http://%s ...✅", serverAddr), utils.CYAN_COLOR)

	if err := fasthttp.ListenAndServe(serverAddr, createRouter()); err != nil {
		utils.LogWithTime(fmt.Sprintf("Error in server: %s", err), utils.RED_COLOR)
	}
}
