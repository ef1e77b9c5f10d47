package operator

import (
	"context"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

// Log fetches the error log of node index.
func (o *Operator) Log(ctx context.Context, index int) (string, error) {
	c, err := o.node(index)
	if err != nil {
		return "", err
	}
	req, err := o.request(&agreement.EmptyPayload{})
	if err != nil {
		return "", err
	}
	resp, err := c.Log(ctx, req)
	if err != nil {
		return "", err
	}
	o.printf("%s\n", resp.Log)
	return resp.Log, nil
}

// SyncDatabase replaces the local database with the dump of node index.
func (o *Operator) SyncDatabase(ctx context.Context, index int) error {
	c, err := o.node(index)
	if err != nil {
		return err
	}
	if o.storage == nil {
		return common.NewValidationError("no local database configured")
	}
	req, err := o.request(&agreement.EmptyPayload{})
	if err != nil {
		return err
	}
	o.printf("Retrieving database from %s...\n", o.label(index))
	resp, err := c.DumpDatabase(ctx, req)
	if err != nil {
		return err
	}
	if err := o.storage.Restore(resp.SQL); err != nil {
		return err
	}
	o.printf("Database synced.\n")
	return nil
}

// Terminate asks node index to shut down, or every node when index is -1.
// All nodes are attempted; the first failure is returned.
func (o *Operator) Terminate(ctx context.Context, index int, message string) error {
	targets := []int{index}
	if index == -1 {
		targets = make([]int, len(o.clients))
		for i := range targets {
			targets[i] = i
		}
	}
	var firstErr error
	for _, i := range targets {
		c, err := o.node(i)
		if err == nil {
			req := &agreement.TerminateRequest{Message: message}
			msg, signErr := o.request(req)
			if signErr != nil {
				return signErr
			}
			o.printf("  Terminating %s -> ", o.label(i))
			err = c.Terminate(ctx, msg)
		}
		if err != nil {
			o.printf("Error: %v\n", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		o.printf("OK\n")
	}
	return firstErr
}
