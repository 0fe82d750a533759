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

/*
Package endpoints holds the resource endpoint registry: the mapping from
logical platform names to the root URLs of OMAG server platforms.

# Building a Registry

A registry is built once from raw endpoint records and never changes:

	reg := endpoints.Build([]endpoints.RawEndpointConfig{
	    {ResourceCategory: "Platform", PlatformName: "Platform1", ResourceRootURL: "https://localhost:8082"},
	})

Only Platform records are registered. Server records and unknown
categories are dropped without error.

# Resolving

	url, err := reg.ResolvePlatformURL("Platform1")
	if errors.Is(err, endpoints.ErrMissingPlatform) {
	    // empty or unknown name
	}

# Persistence

SQLStorage keeps raw records in PostgreSQL or MySQL. Stored records are
read at startup and appended to the file-configured ones before Build.
*/
package endpoints
