// Command lambda runs the gateway as an AWS Lambda behind an API Gateway HTTP API.
package main

import (
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/alex-user-go/travelgw/internal/app"
	"github.com/alex-user-go/travelgw/internal/config"
	"github.com/alex-user-go/travelgw/internal/lambdahttp"
)

func main() {
	cfg, err := config.Load(os.Getenv("TRAVELGW_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.Log.NewLogger(os.Stdout)

	a, err := app.New(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	lambda.Start(lambdahttp.New(a.Handler).Handle)
}
