// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import "errors"

var (
	// ErrProviderNotFound indicates the requested provider id is not loaded.
	// Resolution never proceeds with a guessed or default catalog.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrInvalidProvider indicates a catalog file failed structural validation.
	ErrInvalidProvider = errors.New("invalid provider catalog")
)
