// Package autoload initializes the global logger from LOG_* environment
// variables as a side effect of being imported.
package autoload

import (
	configx "github.com/nawinto99/Helia-Clinical-Agent-Core/pkg/config"
	logx "github.com/nawinto99/Helia-Clinical-Agent-Core/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
