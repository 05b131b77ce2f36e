// Package autoload initializes the global logger from the environment on
// import. Blank-import it from main.
package autoload

import (
	configx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/pkg/config"
	logx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*cfg)
}
