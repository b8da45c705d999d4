// Package utils holds the process-wide plumbing shared by the gitfleet command:
// layered configuration loading through Viper, zap logger construction and the
// serialized writer that carries reconciliation logs to standard output.
package utils
