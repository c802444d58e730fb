// Command recordsync-lambda is the scheduled entry point: an EventBridge
// rule invokes it to refresh the record list object in S3.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog/log"

	"github.com/herbadis/recordsync/pkg/logging"
	"github.com/herbadis/recordsync/pkg/secrets"
)

func main() {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(os.Getenv("LOG_LEVEL")),
		Output: os.Stderr,
	})

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}

	h := &Handler{
		S3:      s3.NewFromConfig(awsCfg),
		Secrets: secrets.NewLoader(secretsmanager.NewFromConfig(awsCfg)),
		Lookup:  os.LookupEnv,
	}
	lambda.Start(h.Handle)
}
