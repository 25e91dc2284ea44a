// Command filesender sends a JSON file to the tuple filter as one UDP datagram.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	streamgen "github.com/ozonru/streamjoin-generator"
	"github.com/ozonru/streamjoin-generator/payload"
)

var (
	file  string
	iface string
	env   string
)

var rootCmd = &cobra.Command{
	Use:           "filesender <destination-host>",
	Short:         "Send a file to the tuple filter",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&file, "file", payload.DefaultFile, "payload file")
	rootCmd.Flags().StringVar(&iface, "iface", "eth0", "interface name must contain this substring")
	rootCmd.Flags().StringVar(&env, "env", "development", "logger environment")
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	log, err := streamgen.NewLogger(env)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()

	i, err := streamgen.FindInterface(net.Interfaces, iface)
	if err != nil {
		return err
	}

	target := streamgen.Target{Host: args[0], Port: payload.Port}
	dst, err := target.Resolve(ctx, net.DefaultResolver)
	if err != nil {
		return err
	}
	log.Info("sending", zap.String("interface", i.Name), zap.Stringer("destination", dst))

	data, err := payload.Load(file)
	if err != nil {
		return err
	}

	conn, err := target.Open(dst)
	if err != nil {
		return err
	}
	defer conn.Close()

	return payload.NewSender(conn, 10*time.Millisecond, log).Send(ctx, data, dst)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
