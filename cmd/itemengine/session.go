package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/itemengine/pkg/item"
)

// sessionFlags are the flags of commands that open a candidate session.
type sessionFlags struct {
	responses string
	snapshot  string
	seed      uint64
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.responses, "responses", "r", "", "YAML or JSON file of candidate responses")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "resume the session saved in this snapshot")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed for templates and shuffling (overrides config)")
}

// open compiles path and starts or resumes a session on it. The responses
// file is stored on the session only when store is set.
func (f *sessionFlags) open(cmd *cobra.Command, path string, store bool) (*item.Item, map[string]any, error) {
	def, err := compileFile(path)
	if err != nil {
		return nil, nil, err
	}
	responses, err := loadResponses(f.responses)
	if err != nil {
		return nil, nil, err
	}
	snap, err := loadSnapshot(f.snapshot)
	if err != nil {
		return nil, nil, err
	}

	opts := itemOptions()
	if cmd.Flags().Changed("seed") {
		opts = append(opts, item.WithSeed(f.seed))
	}
	if snap != nil {
		opts = append(opts, item.WithSnapshot(snap))
	}
	if store && responses != nil {
		opts = append(opts, item.WithResponses(responses))
	}

	it, err := item.NewSession(def, opts...)
	if err != nil {
		return nil, nil, err
	}
	env.logger.Debug("session opened",
		"item_id", it.Identifier(),
		"session_id", it.SessionID(),
		"resumed", snap != nil,
	)
	return it, responses, nil
}
