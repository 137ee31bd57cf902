// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// NATS subjects
const (
	SubjectLifecyclePrefix   = "cityevents.lifecycle."
	SubjectLifecycleShutdown = SubjectLifecyclePrefix + "shutdown"
)
