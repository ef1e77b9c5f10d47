// Package server publishes one authority node over HTTP. Every route is a
// POST with a JSON body, and every successful answer except the admin
// ones is a signed message.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/authority"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
	"github.com/dingocoin/wdingocoin-bridge/logconfig"
)

const (
	ROUTE_PING                          = "/ping"
	ROUTE_GENERATE_DEPOSIT_ADDRESS      = "/generateDepositAddress"
	ROUTE_REGISTER_MINT_DEPOSIT_ADDRESS = "/registerMintDepositAddress"
	ROUTE_QUERY_MINT_BALANCE            = "/queryMintBalance"
	ROUTE_COMPUTE_PENDING_MINT          = "/computePendingMint"
	ROUTE_APPROVE_MINT                  = "/approveMint"
	ROUTE_APPROVE_MINT_TEST             = "/approveMintTest"
	ROUTE_QUERY_BURN_HISTORY            = "/queryBurnHistory"
	ROUTE_SUBMIT_WITHDRAWAL             = "/submitWithdrawal"
	ROUTE_COMPUTE_PENDING_PAYOUTS       = "/computePendingPayouts"
	ROUTE_COMPUTE_UNSPENT               = "/computeUnspent"
	ROUTE_APPROVE_PAYOUTS               = "/approvePayouts"
	ROUTE_APPROVE_PAYOUTS_TEST          = "/approvePayoutsTest"
	ROUTE_STATS                         = "/stats"
	ROUTE_DUMP_DATABASE                 = "/dumpDatabase"
	ROUTE_LOG                           = "/log"
	ROUTE_TERMINATE                     = "/terminate"

	shutdownTimeout = 10 * time.Second
)

type Config struct {
	ServerIP   string // listen ip
	ServerPort string // listen port

	// TLS is used when both are set.
	CertPath string
	KeyPath  string

	RateLimit bool
}

type HttpServer struct {
	cfg    *Config
	node   *authority.Node
	errLog *logconfig.ErrorLog

	// Called once a terminate request was answered.
	onTerminate func(message string)

	srv *http.Server
}

func NewHttpServer(cfg *Config, node *authority.Node, errLog *logconfig.ErrorLog, onTerminate func(message string)) *HttpServer {
	if onTerminate == nil {
		onTerminate = func(string) {}
	}
	return &HttpServer{
		cfg:         cfg,
		node:        node,
		errLog:      errLog,
		onTerminate: onTerminate,
	}
}

// Hook up routes & handlers
func (h *HttpServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(captureBody, h.recordErrors, gin.CustomRecovery(h.recovered))

	limit := func(window time.Duration, count int) gin.HandlerFunc {
		if !h.cfg.RateLimit {
			return func(c *gin.Context) { c.Next() }
		}
		return newIPRateLimiter(window, count).middleware
	}

	router.POST(ROUTE_PING, limit(10*time.Second, 10), handleEmpty(h.node.Ping))
	router.POST(ROUTE_GENERATE_DEPOSIT_ADDRESS, limit(20*time.Second, 1), handle(h.node.GenerateDepositAddress))
	router.POST(ROUTE_REGISTER_MINT_DEPOSIT_ADDRESS, limit(20*time.Second, 1), handle(h.node.RegisterMintDepositAddress))
	router.POST(ROUTE_QUERY_MINT_BALANCE, limit(10*time.Second, 10), handle(h.node.QueryMintBalance))
	router.POST(ROUTE_COMPUTE_PENDING_MINT, limit(5*time.Second, 1), handleEmpty(h.node.ComputePendingMint))
	router.POST(ROUTE_APPROVE_MINT, limit(time.Second, 1), handle(approve(h.node.ApproveMint, false)))
	router.POST(ROUTE_APPROVE_MINT_TEST, limit(time.Second, 1), handle(approve(h.node.ApproveMint, true)))
	router.POST(ROUTE_QUERY_BURN_HISTORY, limit(10*time.Second, 10), handle(h.node.QueryBurnHistory))
	router.POST(ROUTE_SUBMIT_WITHDRAWAL, limit(time.Second, 5), handle(h.node.SubmitWithdrawal))
	router.POST(ROUTE_COMPUTE_PENDING_PAYOUTS, limit(5*time.Second, 1), handle(h.node.ComputePendingPayouts))
	router.POST(ROUTE_COMPUTE_UNSPENT, limit(5*time.Second, 1), handle(h.node.ComputeUnspent))
	router.POST(ROUTE_APPROVE_PAYOUTS, handle(approve(h.node.ApprovePayouts, false)))
	router.POST(ROUTE_APPROVE_PAYOUTS_TEST, limit(5*time.Second, 1), handle(approve(h.node.ApprovePayouts, true)))
	router.POST(ROUTE_STATS, limit(5*time.Second, 1), handleEmpty(h.node.Stats))
	router.POST(ROUTE_DUMP_DATABASE, handle(h.node.DumpDatabase))
	router.POST(ROUTE_LOG, limit(5*time.Second, 1), handle(h.log))
	router.POST(ROUTE_TERMINATE, h.terminate)

	return router
}

func approve(fn func(*envelope.SignedMessage, bool) (*envelope.SignedMessage, error), test bool) func(*envelope.SignedMessage) (*envelope.SignedMessage, error) {
	return func(msg *envelope.SignedMessage) (*envelope.SignedMessage, error) {
		return fn(msg, test)
	}
}

func (h *HttpServer) log(msg *envelope.SignedMessage) (*agreement.LogResponse, error) {
	if _, err := h.node.AuthenticateAny(msg); err != nil {
		return nil, err
	}
	if h.errLog == nil {
		return &agreement.LogResponse{}, nil
	}
	content, err := h.errLog.Read()
	if err != nil {
		return nil, err
	}
	return &agreement.LogResponse{Log: content}, nil
}

func (h *HttpServer) terminate(c *gin.Context) {
	msg := &envelope.SignedMessage{}
	if !bind(c, msg) {
		return
	}
	req, err := h.node.Terminate(msg)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &agreement.EmptyPayload{})
	go h.onTerminate(req.Message)
}

// Run serves until Shutdown is called.
func (h *HttpServer) Run() error {
	h.srv = &http.Server{
		Addr:    h.cfg.ServerIP + ":" + h.cfg.ServerPort,
		Handler: h.SetupRouter(),
	}
	logger.WithFields(logger.Fields{
		"address": h.srv.Addr,
		"tls":     h.cfg.CertPath != "" && h.cfg.KeyPath != "",
	}).Info("authority server listening")

	var err error
	if h.cfg.CertPath != "" && h.cfg.KeyPath != "" {
		err = h.srv.ListenAndServeTLS(h.cfg.CertPath, h.cfg.KeyPath)
	} else {
		err = h.srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (h *HttpServer) Shutdown(ctx context.Context) error {
	if h.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return h.srv.Shutdown(ctx)
}
