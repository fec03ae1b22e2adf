package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BioHazard786/sdprelay/internal/config"
	"github.com/BioHazard786/sdprelay/internal/logging"
)

// peerFlags are shared by every command that talks to a relay.
type peerFlags struct {
	server   string
	stun     string
	turn     string
	turnUser string
	turnPass string
	timeout  time.Duration
}

func (f *peerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.server, "server", "S", "", "Relay websocket URL (env SERVER_URL, default "+config.DefaultServerURL+")")
	cmd.Flags().StringVarP(&f.stun, "stun", "s", "", "Custom STUN server (env STUN_SERVER)")
	cmd.Flags().StringVarP(&f.turn, "turn", "t", "", "Custom TURN server (env TURN_SERVER)")
	cmd.Flags().StringVarP(&f.turnUser, "turn-user", "u", "", "TURN username (env TURN_USERNAME)")
	cmd.Flags().StringVarP(&f.turnPass, "turn-pass", "p", "", "TURN password (env TURN_PASSWORD)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Give up after this long (default 10m)")
}

// LoadConfig resolves the peer configuration and a console logger for it.
func (f *peerFlags) LoadConfig() (*config.Peer, *zap.Logger, error) {
	cfg, err := config.LoadPeer(config.PeerOptions{
		ServerURL:  f.server,
		STUNServer: f.stun,
		TURNServer: f.turn,
		TURNUser:   f.turnUser,
		TURNPass:   f.turnPass,
		Timeout:    f.timeout,
		LogLevel:   flagLogLevel,
	})
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
