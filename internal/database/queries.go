/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	queryGetDocument = `
		SELECT content, revision
		FROM documents
		WHERE collection = ?`

	queryInsertDocument = `
		INSERT INTO documents (collection, content, revision, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)`

	// Revision-gated replace. Zero rows affected means the caller's
	// revision is stale.
	queryUpdateDocument = `
		UPDATE documents
		SET content = ?, revision = ?, updated_at = CURRENT_TIMESTAMP
		WHERE collection = ? AND revision = ?`

	queryCountDocument = `
		SELECT COUNT(*) FROM documents WHERE collection = ?`
)
