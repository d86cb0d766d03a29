// Package logging provides structured logging using uber/zap.
//
// Two output modes:
//   - Production: JSON lines for machine parsing
//   - Development: colored console output
//
// Components receive a *Logger and attach structured fields rather than
// formatting strings:
//
//	base, err := logging.New(logging.ConfigFor("info", false))
//	if err != nil {
//		return err
//	}
//	logger := base.Named("session")
//	logger.Info("session spawned", zap.Stringer("session", sid), zap.Int("pid", pid))
//	logger.Debug("cwd lookup failed", zap.Error(err))
//
// Tests use NewNop.
package logging
