// Package installer invokes the external openvpn-install.sh script, the
// only place the bot shells out. The script is the source of truth for the
// server-side certificate index; profile files in the artifact directory
// mirror it.
package installer

import (
	"context"
	"os"
	"os/exec"

	apperrors "vpn-tool-bot/internal/common/errors"
	"vpn-tool-bot/internal/common/logger"
)

// Script contract: MENU_OPTION selects the operation, CLIENT carries the
// sanitized identifier, OVPN_PATH the artifact directory. Values are passed
// as discrete environment entries so nothing is ever reinterpreted by a
// shell.
const (
	menuOptionCreate = "1"
	menuOptionRevoke = "2"
)

type Script struct {
	path string
	dir  string
	dns  string
}

// New returns a runner for the install script at path writing profiles
// under dir. dns is the resolver choice code passed on bulk install.
func New(path, dir, dns string) *Script {
	return &Script{path: path, dir: dir, dns: dns}
}

// Create issues a new client profile named <client>.ovpn under the
// artifact directory.
func (s *Script) Create(ctx context.Context, client string) error {
	return s.run(ctx, "create", []string{
		"MENU_OPTION=" + menuOptionCreate,
		"CLIENT=" + client,
		"PASS=1",
		"OVPN_PATH=" + s.dir,
	})
}

// Revoke revokes the client certificate and clears its profile file per
// the script's own convention.
func (s *Script) Revoke(ctx context.Context, client string) error {
	return s.run(ctx, "revoke", []string{
		"MENU_OPTION=" + menuOptionRevoke,
		"CLIENT=" + client,
		"OVPN_PATH=" + s.dir,
	})
}

// AutoInstall performs the unattended server installation.
func (s *Script) AutoInstall(ctx context.Context) error {
	return s.run(ctx, "auto-install", []string{
		"AUTO_INSTALL=y",
		"DNS=" + s.dns,
		"OVPN_PATH=" + s.dir,
	})
}

func (s *Script) run(ctx context.Context, operation string, env []string) error {
	cmd := exec.CommandContext(ctx, "bash", s.path)
	cmd.Env = append(os.Environ(), env...)

	logger.Debug().
		Str("script", s.path).
		Str("operation", operation).
		Msg("Invoking install script")

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		logger.Debug().
			Str("operation", operation).
			Str("output", string(out)).
			Msg("Install script output")
	}
	if err != nil {
		// No retries: blindly re-running a credential script risks a
		// duplicate or inconsistent certificate index.
		return apperrors.NewIssuanceError(operation, err).
			WithContext("script", s.path)
	}
	return nil
}
