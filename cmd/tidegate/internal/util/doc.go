// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package util provides shared plumbing for the tidegate CLI: command
// error wrapping with stderr context, timeout floors that prevent
// misconfigured infinite hangs, and a bounded polling helper used for
// drain and readiness waits.
package util
