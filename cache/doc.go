// Copyright 2025 Finvoc Labs
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


// Package cache provides the query-result cache that amortizes repeated
// searches.
//
// Keys are stable hashes of the normalized query text plus every parameter
// that affects the result set. Entries expire on an absolute TTL and can be
// bulk-invalidated by tag (entry IDs and category labels), which is how the
// ingestion pipeline keeps the cache honest when records change underneath
// it. The cache is fully disposable: losing it costs latency, never
// correctness.
package cache
