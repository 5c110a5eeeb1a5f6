/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"strconv"

	"mangatrans/internal/domain"
)

// Labels derives the display label of every marker in one ordered pass.
// Each category keeps its own counter starting at 1, so labels are always
// dense and unique within a category. The result is parallel to ms.
func Labels(ms []domain.Marker) []string {
	out := make([]string, len(ms))
	counts := map[domain.Category]int{}
	for i, mk := range ms {
		cat := mk.Category
		if !cat.Valid() {
			cat = domain.CategoryInside
		}
		counts[cat]++
		out[i] = string(cat) + "-" + strconv.Itoa(counts[cat])
	}
	return out
}

// LabelOf returns the label of id within ms, or "" when absent.
func LabelOf(ms []domain.Marker, id string) string {
	labels := Labels(ms)
	for i, mk := range ms {
		if mk.ID == id {
			return labels[i]
		}
	}
	return ""
}
