// Package autoload initializes the global logger from LOG_* environment
// variables on import, for binaries that want logging before config parsing.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/naruemon-s/glowdesk/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		conf = *logx.DefaultConfig
	}
	logx.Init(conf)
}
