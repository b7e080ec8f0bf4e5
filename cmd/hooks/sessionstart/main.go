// Command sessionstart is the SessionStart lifecycle hook binary.
package main

import (
	"encoding/json"

	"github.com/Elizarfish/infinite-context/internal/bootstrap"
	"github.com/Elizarfish/infinite-context/internal/hookrun"
	"github.com/Elizarfish/infinite-context/internal/logging"
	"github.com/Elizarfish/infinite-context/internal/orchestrate"
)

func main() {
	hookrun.Run(logging.CategoryHook, func(raw json.RawMessage) (hookrun.Output, error) {
		sess, err := bootstrap.Open()
		if err != nil {
			return hookrun.Output{}, err
		}
		defer sess.Close()

		return orchestrate.SessionStart(orchestrate.Deps{Store: sess.Store, Config: sess.Config}, raw)
	})
}
