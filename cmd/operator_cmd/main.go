package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/dingocoin/wdingocoin-bridge/cmd"
	"github.com/dingocoin/wdingocoin-bridge/logconfig"
	"github.com/dingocoin/wdingocoin-bridge/operator"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "authority configuration file",
		EnvVars: []string{cmd.ENV_CONFIG_FILE_PATH},
	}
	tlsFlag = &cli.BoolFlag{
		Name:  "tls",
		Usage: "talk to the nodes over https",
		Value: true,
	}
	depositsFlag = &cli.BoolFlag{
		Name:  "deposits",
		Usage: "pay out deposit taxes",
		Value: true,
	}
	withdrawalsFlag = &cli.BoolFlag{
		Name:  "withdrawals",
		Usage: "pay out withdrawals",
		Value: true,
	}
)

func main() {
	logconfig.ConfigInfoLogger()

	app := &cli.App{
		Name:  "operator",
		Usage: "drive the wDingocoin authority federation",
		Flags: []cli.Flag{configFlag, tlsFlag},
		Commands: []*cli.Command{
			{
				Name:   "ping",
				Usage:  "check every node answers with a valid signature",
				Action: withOperator(nil, ping),
			},
			{
				Name:      "createMintDepositAddress",
				Usage:     "create the deposit address of a mint address",
				ArgsUsage: "<mintAddress>",
				Action:    withOperator(nil, createMintDepositAddress),
			},
			{
				Name:      "queryMintBalance",
				Usage:     "show what every node knows about a mint address",
				ArgsUsage: "<mintAddress>",
				Action:    withOperator(nil, queryMintBalance),
			},
			{
				Name:      "queryBurnHistory",
				Usage:     "show the status of burns on every node",
				ArgsUsage: "<burnSignature>...",
				Action:    withOperator(nil, queryBurnHistory),
			},
			{
				Name:   "executeMint",
				Usage:  "approve and finalize the first pending mint",
				Action: withOperator(&cmd.OperatorOptions{WithAptos: true}, executeMint(false)),
			},
			{
				Name:   "executeMintTest",
				Usage:  "run the mint approval in test mode only",
				Action: withOperator(nil, executeMint(true)),
			},
			{
				Name:   "executePayouts",
				Usage:  "approve and broadcast the pending payouts",
				Flags:  []cli.Flag{depositsFlag, withdrawalsFlag},
				Action: withOperator(nil, executePayouts(false)),
			},
			{
				Name:   "executePayoutsTest",
				Usage:  "run the payout approval chain in test mode only",
				Flags:  []cli.Flag{depositsFlag, withdrawalsFlag},
				Action: withOperator(nil, executePayouts(true)),
			},
			{
				Name:   "consensus",
				Usage:  "compare the stats of every node",
				Action: withOperator(nil, consensus),
			},
			{
				Name:      "log",
				Usage:     "print the error log of a node",
				ArgsUsage: "<nodeIndex>",
				Action:    withOperator(nil, printLog),
			},
			{
				Name:      "syncDatabase",
				Usage:     "replace the local database with the one of a node",
				ArgsUsage: "<nodeIndex>",
				Action:    withOperator(&cmd.OperatorOptions{WithDatabase: true}, syncDatabase),
			},
			{
				Name:      "terminate",
				Usage:     "shut down a node, or all of them",
				ArgsUsage: "<nodeIndex|all> <message>",
				Action:    withOperator(nil, terminate),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func withOperator(opts *cmd.OperatorOptions, action func(*cli.Context, *operator.Operator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		configFile := c.String(configFlag.Name)
		if !cmd.FileExists(configFile) {
			return fmt.Errorf("authority configuration file not found: %q", configFile)
		}
		viper.AutomaticEnv()
		if err := cmd.InitializeViper(configFile); err != nil {
			return err
		}
		asc, err := cmd.PrepareAuthorityServerConfig()
		if err != nil {
			return err
		}

		o := &cmd.OperatorOptions{}
		if opts != nil {
			*o = *opts
		}
		o.UseTLS = c.Bool(tlsFlag.Name)
		op, release, err := cmd.NewOperator(asc, o, os.Stdout)
		if err != nil {
			return err
		}
		defer release()
		return action(c, op)
	}
}

func argOrFail(c *cli.Context, i int, name string) (string, error) {
	if c.NArg() <= i {
		return "", fmt.Errorf("missing argument <%s>", name)
	}
	return c.Args().Get(i), nil
}

func nodeIndex(c *cli.Context) (int, error) {
	s, err := argOrFail(c, 0, "nodeIndex")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func ping(c *cli.Context, op *operator.Operator) error {
	for _, err := range op.Ping(c.Context) {
		if err != nil {
			return cli.Exit("some nodes did not answer", 1)
		}
	}
	return nil
}

func createMintDepositAddress(c *cli.Context, op *operator.Operator) error {
	mintAddress, err := argOrFail(c, 0, "mintAddress")
	if err != nil {
		return err
	}
	_, err = op.CreateMintDepositAddress(c.Context, mintAddress)
	return err
}

func queryMintBalance(c *cli.Context, op *operator.Operator) error {
	mintAddress, err := argOrFail(c, 0, "mintAddress")
	if err != nil {
		return err
	}
	op.QueryMintBalance(c.Context, mintAddress)
	return nil
}

func queryBurnHistory(c *cli.Context, op *operator.Operator) error {
	if c.NArg() == 0 {
		return fmt.Errorf("missing argument <burnSignature>")
	}
	op.QueryBurnHistory(c.Context, c.Args().Slice())
	return nil
}

func executeMint(test bool) func(*cli.Context, *operator.Operator) error {
	return func(c *cli.Context, op *operator.Operator) error {
		_, err := op.ExecuteMint(c.Context, test)
		return err
	}
}

func executePayouts(test bool) func(*cli.Context, *operator.Operator) error {
	return func(c *cli.Context, op *operator.Operator) error {
		_, err := op.ExecutePayouts(c.Context, c.Bool(depositsFlag.Name), c.Bool(withdrawalsFlag.Name), test)
		return err
	}
}

func consensus(c *cli.Context, op *operator.Operator) error {
	_, err := op.Consensus(c.Context)
	return err
}

func printLog(c *cli.Context, op *operator.Operator) error {
	i, err := nodeIndex(c)
	if err != nil {
		return err
	}
	_, err = op.Log(c.Context, i)
	return err
}

func syncDatabase(c *cli.Context, op *operator.Operator) error {
	i, err := nodeIndex(c)
	if err != nil {
		return err
	}
	return op.SyncDatabase(c.Context, i)
}

func terminate(c *cli.Context, op *operator.Operator) error {
	target, err := argOrFail(c, 0, "nodeIndex|all")
	if err != nil {
		return err
	}
	message, err := argOrFail(c, 1, "message")
	if err != nil {
		return err
	}
	i := -1
	if target != "all" {
		if i, err = strconv.Atoi(target); err != nil {
			return err
		}
	}
	return op.Terminate(c.Context, i, message)
}
