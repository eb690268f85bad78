package cmd

import (
	"flag"

	"grimm.is/stockade/internal/api"
	"grimm.is/stockade/internal/clock"
	"grimm.is/stockade/internal/logging"
	"grimm.is/stockade/internal/store"
)

// RunServe starts the rule service HTTP API.
func RunServe(args []string) error {
	var listen string
	var storePath string
	var jsonLog bool
	var debug bool

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&listen, "listen", ":8484", "Listen address")
	fs.StringVar(&storePath, "store", "rules.json", "Rule store file (empty for in-memory)")
	fs.BoolVar(&jsonLog, "json-log", false, "Log in JSON format")
	fs.BoolVar(&debug, "debug", false, "Enable debug logging")
	fs.Parse(args)

	logCfg := logging.DefaultConfig()
	logCfg.JSON = jsonLog
	if debug {
		logCfg.Level = logging.LevelDebug
	}
	logger := logging.New(logCfg)
	logging.SetDefault(logger)

	clk := &clock.RealClock{}
	st, err := store.New(storePath, clk)
	if err != nil {
		return err
	}
	logger.Info("rule store loaded", "path", storePath, "rules", st.Count())

	srv, err := api.NewServer(api.ServerOptions{
		Store:  st,
		Clock:  clk,
		Logger: logger.WithComponent("api"),
	})
	if err != nil {
		return err
	}

	return srv.Start(listen)
}
