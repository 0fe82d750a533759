// Copyright 2025 AxonFlow
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

// Package main is the entry point for the Server Author view service.
//
// The view service configures OMAG servers through the admin services of
// the platforms that host them:
// - Keeps a registry of named platforms and their root URLs
// - Sets local repository modes, access services, event bus and audit logs
// - Reads, replaces and deploys server configuration documents
// - Archives configuration documents to S3, GCS or Azure Blob Storage
// - Journals every administrative operation
//
// Usage:
//
//	./serverauthor
//
// Environment Variables:
//
//	CONFIG_FILE - path of the YAML configuration (default: config/server-author.yaml)
//	PORT - HTTP server port (default: server.port from the configuration)
//	INSTANCE_ID - instance identifier included in structured logs
package main

import (
	"github.com/springborland/egeria/orchestrator"
)

func main() {
	orchestrator.Run()
}
