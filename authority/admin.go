package authority

import (
	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
)

// DumpDatabase hands the whole local state to a fellow authority. The
// response is not enveloped.
func (n *Node) DumpDatabase(msg *envelope.SignedMessage) (*agreement.DumpDatabaseResponse, error) {
	if _, err := n.AuthenticateAny(msg); err != nil {
		return nil, err
	}
	sql, err := n.storage.Dump()
	if err != nil {
		return nil, err
	}
	return &agreement.DumpDatabaseResponse{SQL: sql}, nil
}

// Terminate authenticates a shutdown request. Stopping the process is up
// to the caller.
func (n *Node) Terminate(msg *envelope.SignedMessage) (*agreement.TerminateRequest, error) {
	data, err := n.AuthenticateAny(msg)
	if err != nil {
		return nil, err
	}
	req := &agreement.TerminateRequest{}
	if err := envelope.Decode(data, req); err != nil {
		return nil, err
	}
	logger.WithField("message", req.Message).Warn("termination requested")
	return req, nil
}
