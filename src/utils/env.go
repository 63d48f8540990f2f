package utils

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const envFilename = ".env"

// InitEnvironmentVariables loads the local .env file unless running in
// production, where configuration comes from the environment directly.
func InitEnvironmentVariables() error {
	if os.Getenv("GO_ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	if err := godotenv.Load(envFilename); err != nil {
		log.Infof("no %s file loaded: %v", envFilename, err)
	}

	return nil
}
