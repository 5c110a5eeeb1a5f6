/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"strings"

	"mangatrans/internal/domain"
)

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// SetTranslationText stores text and moves the status between empty and
// translated. A proofed marker keeps its status; only ToggleProof leaves it.
func SetTranslationText(m *domain.Marker, text string) bool {
	changed := m.TranslationText != text
	m.TranslationText = text
	switch m.Status {
	case domain.StatusEmpty:
		if !blank(text) {
			m.Status = domain.StatusTranslated
			changed = true
		}
	case domain.StatusTranslated:
		if blank(text) {
			m.Status = domain.StatusEmpty
			changed = true
		}
	}
	return changed
}

// SetProofText stores text without any status transition.
func SetProofText(m *domain.Marker, text string) bool {
	if m.ProofText == text {
		return false
	}
	m.ProofText = text
	return true
}

// CanProof reports whether ToggleProof would mark m as proofed.
func CanProof(m domain.Marker) bool {
	return m.Status != domain.StatusProofed && (!blank(m.ProofText) || !blank(m.TranslationText))
}

// ToggleProof marks m proofed or reverts it. Proofing freezes the proof
// text, or the translation when no proof text was entered, and mirrors it
// into the translation. Un-proofing clears the proof text and falls back to
// translated or empty depending on the translation. It reports false when
// there is no text to accept.
func ToggleProof(m *domain.Marker) bool {
	if m.Status == domain.StatusProofed {
		m.ProofText = ""
		if blank(m.TranslationText) {
			m.Status = domain.StatusEmpty
		} else {
			m.Status = domain.StatusTranslated
		}
		return true
	}
	if !CanProof(*m) {
		return false
	}
	accepted := m.ProofText
	if blank(accepted) {
		accepted = m.TranslationText
	}
	m.ProofText = accepted
	m.TranslationText = accepted
	m.Status = domain.StatusProofed
	return true
}
