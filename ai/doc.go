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


// Package ai defines the embedding-provider boundary of the engine.
//
// The engine treats the embedding model as a black box: a deterministic
// function from text to a fixed-length vector, identified by a model id.
// Subpackages provide a production implementation backed by OpenAI-compatible
// APIs (openai) and a deterministic test double (mock).
//
// When the external model is unreachable the provider fails with
// ErrEmbeddingUnavailable. There is deliberately no fallback to synthetic
// vectors: a meaningless vector corrupts ranking silently, which is far worse
// than a loud failure.
package ai
