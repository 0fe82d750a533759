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

/*
Package logger provides structured JSON logging for the server author
view service.

Each entry carries the component name, the deployment instance and
container, the acting user and the governed server a call targets:

	log := logger.New("server-author")
	log.Info("garygeeke", "cocoMDS1", "event bus configured", map[string]interface{}{
	    "operation": "setEventBus",
	})

Failed calls are logged with their error category:

	log.ErrorWithKind("garygeeke", "cocoMDS1", "operation failed", "Unauthorized", err, nil)

Output is a single JSON line per entry:

	{"timestamp":"2025-01-15T10:30:00.123456789Z","level":"INFO",
	 "component":"server-author","instance_id":"i-abc123","container":"host-1",
	 "user_id":"garygeeke","server_name":"cocoMDS1",
	 "message":"event bus configured","fields":{"operation":"setEventBus"}}

INSTANCE_ID is read from the environment; the container name is the host
name. Loggers are safe for concurrent use.
*/
package logger
