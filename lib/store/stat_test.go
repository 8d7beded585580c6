// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package store

import "syscall"

// syscallStat is the platform stat type behind os.FileInfo.Sys(),
// used by tests to read link counts.
type syscallStat = syscall.Stat_t
