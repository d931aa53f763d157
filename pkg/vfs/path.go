// Copyright 2025 The EmberFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vfs

import (
	"strings"

	"emberfs.dev/emberfs/pkg/syserr"
)

// NormalizePath turns path into a canonical absolute path: relative paths
// are joined to cwd, "." components drop out and ".." components pop,
// never above "/". cwd must itself be absolute; pass "/" when there is no
// working directory.
func NormalizePath(cwd, path string) (string, error) {
	if path == "" {
		return "", syserr.ErrInvalid
	}
	if !strings.HasPrefix(path, "/") {
		if !strings.HasPrefix(cwd, "/") {
			return "", syserr.ErrInvalid
		}
		path = cwd + "/" + path
	}

	var stack []string
	for _, c := range strings.Split(path, "/") {
		switch c {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, c)
		}
	}

	out := "/" + strings.Join(stack, "/")
	if len(out)+1 > MaxPath {
		return "", syserr.ErrNameTooLong
	}
	return out, nil
}

// SplitPath splits a normalized absolute path into the parent directory
// and the final component. The parent of "/" is "/" with an empty base.
func SplitPath(path string) (dir, base string) {
	i := strings.LastIndexByte(path, '/')
	dir, base = path[:i], path[i+1:]
	if dir == "" {
		dir = "/"
	}
	return dir, base
}

// splitComponents returns the components of a normalized absolute path;
// "/" yields none.
func splitComponents(path string) []string {
	if path == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}
