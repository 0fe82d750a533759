// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orchestrator implements the Server Author view service.
//
// A Handler is one orchestration session: the acting user, the default
// admin platform, and a registry of named platforms built once from the
// configured resource endpoints. Each operation resolves its platform,
// binds a fresh adminclient.Client, makes exactly one administrative call
// and returns either the result or a *ServiceError of one Kind:
//
//	MissingPlatform     platform name absent or unregistered (no call made)
//	Unauthorized        acting user lacks rights on the remote server
//	InvalidParameter    the admin services rejected an argument
//	ConfigurationError  any other remote failure, transport errors included
//	NotImplemented      server activation and deactivation
//
// Failures are never retried. Callers branch with errors.Is on the
// package sentinels or with KindOf.
//
// APIServer exposes a Handler over REST under /api/v1, and Run wires the
// whole service from a YAML configuration file.
package orchestrator
