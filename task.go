package auditagent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// auditDevice drives one device end to end: open a session, detect the OS
// family, run the catalog commands in fixed order, correlate, release the
// session. Every failure is converted into exactly one terminal row here;
// nothing propagates into the worker loop, since one device's failure must
// not abort others.
func (p *AuditPool) auditDevice(ctx context.Context, deviceID string, log zerolog.Logger) (rows []Row) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("device task panicked")
			rows = []Row{failureRow(deviceID, fmt.Sprintf(statusErrorFormat, fmt.Sprint(r)))}
		}
	}()

	log.Info().Msg("connecting to device")
	sess, err := p.provider.Open(ctx, deviceID, p.cfg.Credentials, p.cfg.Timeout)
	if err != nil {
		return []Row{p.connectFailureRow(deviceID, err, log)}
	}
	defer sess.Close()

	family := sess.OSFamily()
	log.Info().Str("os_family", string(family)).Msg("connected")

	cmds, ok := CommandsFor(family)
	if !ok {
		log.Warn().Str("os_family", string(family)).Msg("unsupported OS, skipping device")
		return []Row{unsupportedOSRow(deviceID, family)}
	}

	versions, err := sess.CollectVersion(ctx, cmds.Version)
	if err != nil {
		log.Error().Err(err).Str("command", cmds.Version).Msg("command failed")
		return []Row{errorRow(deviceID, err)}
	}
	interfaces, err := sess.CollectInterfaces(ctx, cmds.Interfaces)
	if err != nil {
		log.Error().Err(err).Str("command", cmds.Interfaces).Msg("command failed")
		return []Row{errorRow(deviceID, err)}
	}
	var neighbors []NeighborRecord
	if cmds.Neighbors != "" {
		neighbors, err = sess.CollectNeighbors(ctx, cmds.Neighbors)
		if err != nil {
			log.Error().Err(err).Str("command", cmds.Neighbors).Msg("command failed")
			return []Row{errorRow(deviceID, err)}
		}
	}

	switch {
	case len(versions) == 0:
		log.Error().Msg("could not parse version data")
	case len(interfaces) == 0:
		log.Info().Msg("no interface data parsed, writing device summary row")
	}
	return correlateDevice(deviceID, versions, interfaces, neighbors)
}

// connectFailureRow maps a classified open failure onto its status literal.
func (p *AuditPool) connectFailureRow(deviceID string, err error, log zerolog.Logger) Row {
	switch FailureKindOf(err) {
	case FailureAuthentication:
		log.Error().Msg("authentication failed")
		return failureRow(deviceID, StatusAuthFailed)
	case FailureConnectTimeout:
		log.Error().Msg("connection timed out")
		return failureRow(deviceID, StatusConnectTimeout)
	default:
		log.Error().Err(err).Msg("unexpected connection error")
		return errorRow(deviceID, err)
	}
}
