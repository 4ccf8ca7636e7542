package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jrsteele09/go-directory-session/session"
	"github.com/spf13/cobra"
)

type resultOutput struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (c *cli) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// report prints res and returns errReported when it is a failure.
func (c *cli) report(cmd *cobra.Command, res session.Result, okMessage string) error {
	if c.jsonOut {
		if err := c.printJSON(cmd, resultOutput{Success: res.Success, Message: res.Message, Fields: res.Fields}); err != nil {
			return err
		}
	} else if res.Success {
		fmt.Fprintln(cmd.OutOrStdout(), okMessage)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", res.Message)
		keys := make([]string, 0, len(res.Fields))
		for k := range res.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", k, res.Fields[k])
		}
	}

	if !res.Success {
		return errReported
	}
	return nil
}
