// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package federate

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Registration only fails for an empty tag name.
		_ = v.RegisterValidation("abspath", validateAbsPath)
	}
}

// validateAbsPath accepts clean absolute paths. Relative roots and paths
// smuggling ".." segments are rejected before they reach the filesystem.
func validateAbsPath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if !filepath.IsAbs(path) {
		return false
	}
	if strings.ContainsRune(path, '\x00') {
		return false
	}
	return filepath.Clean(path) == path
}
