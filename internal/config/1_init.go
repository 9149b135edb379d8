package config

import (
	"context"
	"runtime"

	log "github.com/sirupsen/logrus"
)

func init() {
	log.AddHook(collectHook{})
	InitLog(StringValue("SITEDB_LOG_LEVEL"), StringValue("SITEDB_LOG_FORMAT"))

	if BoolValue("SITEDB_DEBUG") {
		log.SetLevel(log.DebugLevel)
		LogDebug(context.Background(), "sitedb config.init(): arch: "+runtime.GOOS)
	}
}
