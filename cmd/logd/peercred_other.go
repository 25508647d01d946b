// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package main

import (
	"errors"
	"net"
)

func peerPID(net.Conn) (int32, error) {
	return 0, errors.New("peer credentials are only read on linux")
}
