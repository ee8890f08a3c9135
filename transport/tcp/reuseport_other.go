//go:build !unix

package tcp

import "syscall"

func reusePort(network, address string, rc syscall.RawConn) error { return nil }

func isAddrInUse(err error) bool { return false }
