// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package process abstracts external process execution and inter-process
// locking for the tidegate CLI.
//
// Every external tool tidegate drives (terraform, kubectl, pg_dump) is
// invoked through the Manager interface rather than os/exec directly.
// This keeps the lifecycle code testable: tests substitute MockManager
// and verify the exact command lines without executing anything.
//
// The package also provides ProcessLocker, a flock(2)-based guard that
// prevents two tidegate invocations from mutating the same environment
// on one host at the same time. The lock is advisory and host-local;
// it does not coordinate across machines.
package process
