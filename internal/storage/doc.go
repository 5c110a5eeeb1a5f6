/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists the workbench's marker lists and the image cache
// metadata. A local SQLite file (modernc.org/sqlite, CGO-free) is the default;
// a postgres:// DSN points several translators at one shared database through
// the pgx stdlib driver. Page snapshots are written as JSON with transactional
// temp-file-and-rename semantics.
package storage
