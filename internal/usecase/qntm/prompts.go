// Package qntm generates semantic addressing keys for memory chunks.
// A key is a three-segment string "subject ~ predicate ~ object" pinned
// to an abstraction level, produced by an LLM backend and validated
// before use.
package qntm

import (
	"fmt"
	"strings"
	"time"

	"atlas/internal/domain"
)

// Slice policies for existing-key context in prompts. Generation shows
// the most recent keys so new keys align with current vocabulary; query
// expansion shows the oldest keys because established vocabulary matches
// stored chunks better.
const (
	maxRecentKeys = 50
	maxQueryKeys  = 30
)

// FileContext carries optional provenance for a chunk sourced from a file.
type FileContext struct {
	FileName    string
	ChunkIndex  int
	TotalChunks int
}

// levelInstructions holds one guidance block per abstraction level.
// Indexed by domain.AbstractionLevel.
var levelInstructions = [4]string{
	`## Abstraction Level: L0 (Instance)
Capture the specific, concrete event or fact in this chunk.
- Name the exact actors, artifacts, or values involved.
- Prefer precise nouns over categories ("auth_handler" not "code").
- Keep the timestamp-bound, one-off nature of the event.
- Do not generalize; another instance of the same kind gets its own key.
Examples:
- deploy_script ~ failed_on ~ staging_cluster
- user_query ~ asked_about ~ rate_limits
- config_reload ~ triggered_by ~ sighup`,

	`## Abstraction Level: L1 (Topic)
Capture the recurring subject this chunk belongs to.
- Group related instances under a shared subject.
- Use the domain vocabulary that keeps reappearing in the text.
- A topic should plausibly collect several chunks over time.
- Avoid one-off details; those belong at L0.
Examples:
- deployment_pipeline ~ covers ~ staging_failures
- rate_limiting ~ discussed_in ~ api_design
- session_management ~ relates_to ~ auth_flow`,

	`## Abstraction Level: L2 (Concept)
Capture the general idea or mechanism the chunk illustrates.
- Name the underlying pattern, not the specific occurrence.
- The key should make sense without knowing this conversation.
- Prefer widely understood technical or domain terms.
- Two unrelated projects could share an L2 key.
Examples:
- circuit_breaking ~ protects ~ downstream_services
- exponential_backoff ~ bounds ~ retry_load
- capability_routing ~ decouples ~ callers_from_providers`,

	`## Abstraction Level: L3 (Principle)
Capture the durable rule or value the chunk expresses.
- State something that would still hold in five years.
- Prefer normative phrasing (should, must, prefers).
- A principle spans many concepts and projects.
Examples:
- failures ~ should_degrade ~ gracefully
- configuration ~ beats ~ hardcoding
- explicit_errors ~ outlast ~ silent_fallbacks`,
}

const keyFormatHeader = `# Semantic Key Generation

Generate semantic addressing keys for the text chunk below. Each key is a
ternary statement with exactly three segments joined by " ~ ":

    subject ~ predicate ~ object

Segments are short lowercase phrases with underscores instead of spaces.`

const keyRules = `## Instructions

1. Produce 1-3 keys that best address this chunk.
2. Every key must have exactly three " ~ "-separated segments.
3. Reuse segments from existing keys when the chunk genuinely relates;
   otherwise introduce new vocabulary.
4. Match the abstraction level described above; do not mix levels.
5. Keys must be meaningful on their own, without the chunk text.
6. No duplicates of keys already in the existing list.`

const keyOutputFormat = `## Output Format

Respond with JSON only:

{"keys": ["subject ~ predicate ~ object"], "reasoning": "one sentence on why these keys"}`

const keyChecklist = `## Quality Checklist

Before answering, verify each key reads as a natural statement, uses the
" ~ " separator exactly twice, and would retrieve this chunk for someone
searching the subject later.`

// BuildKeyPrompt assembles the key-generation prompt for a chunk. Pure
// and deterministic for identical inputs.
func BuildKeyPrompt(chunk string, existingKeys []string, level domain.AbstractionLevel, fctx *FileContext) string {
	var b strings.Builder

	b.WriteString(keyFormatHeader)
	b.WriteString("\n\n")
	b.WriteString(levelInstructions[level])
	b.WriteString("\n\n## Existing Keys\n\n")
	b.WriteString(renderKeys(lastN(existingKeys, maxRecentKeys)))

	if fctx != nil {
		fmt.Fprintf(&b, "\n\n## Source\n\nFile: %s (chunk %d of %d)",
			fctx.FileName, fctx.ChunkIndex+1, fctx.TotalChunks)
	}

	b.WriteString("\n\n## Chunk\n\n")
	b.WriteString(chunk)
	b.WriteString("\n\n")
	b.WriteString(keyRules)
	b.WriteString("\n\n")
	b.WriteString(keyOutputFormat)
	b.WriteString("\n\n")
	b.WriteString(keyChecklist)

	return b.String()
}

const compactionHeader = `# Conversation Compaction

Compress the conversation below into a structured working-memory record.
Preserve decisions, open threads, and any wording that must survive
verbatim. Drop pleasantries and dead ends.`

const compactionOutputFormat = `## Output Format

Respond with JSON only:

{
  "summary": "...",
  "completed": ["..."],
  "in_progress": ["..."],
  "next_steps": ["..."],
  "decisions": ["..."],
  "context": {},
  "verbatim_quotes": ["..."]
}`

// BuildCompactionPrompt renders a conversation for working-memory
// compaction. Each turn becomes a "[ROLE]\ncontent" block.
func BuildCompactionPrompt(conversation []domain.Message) string {
	blocks := make([]string, 0, len(conversation))
	for _, msg := range conversation {
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s",
			strings.ToUpper(msg.Role), domain.ExtractText(msg)))
	}

	var b strings.Builder
	b.WriteString(compactionHeader)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(blocks, "\n\n---\n\n"))
	b.WriteString("\n\n")
	b.WriteString(compactionOutputFormat)
	return b.String()
}

const consolidationTaxonomy = `## Relationship Types

Classify the relationship between the two chunks as exactly one of:

- duplicate_work: both chunks describe the same work or fact; one can
  absorb the other.
- sequential_iteration: one chunk supersedes the other as a later step
  of the same effort.
- contextual_convergence: independent chunks that arrived at related
  conclusions and are worth cross-linking, not merging.`

const consolidationOutputFormat = `## Output Format

Respond with JSON only:

{"type": "...", "direction": "1->2 | 2->1 | none", "reasoning": "...", "keep": "1 | 2 | both", "merged_summary": "required when keep is not both"}`

// ConsolidationInput describes one side of a consolidation comparison.
type ConsolidationInput struct {
	Text    string
	Keys    []string
	Created time.Time
	Level   domain.AbstractionLevel
}

// BuildConsolidationPrompt renders two chunks for relationship
// classification during memory consolidation.
func BuildConsolidationPrompt(a, b ConsolidationInput) string {
	var sb strings.Builder
	sb.WriteString("# Memory Consolidation\n\nDecide how these two memory chunks relate.\n\n")
	writeConsolidationChunk(&sb, 1, a)
	sb.WriteString("\n\n")
	writeConsolidationChunk(&sb, 2, b)
	sb.WriteString("\n\n")
	sb.WriteString(consolidationTaxonomy)
	sb.WriteString("\n\n")
	sb.WriteString(consolidationOutputFormat)
	return sb.String()
}

func writeConsolidationChunk(sb *strings.Builder, n int, in ConsolidationInput) {
	fmt.Fprintf(sb, "## Chunk %d\n\nKeys: %s\nCreated: %s\nLevel: %s\n\n%s",
		n,
		renderKeys(in.Keys),
		in.Created.UTC().Format(time.RFC3339),
		in.Level,
		in.Text)
}

const queryExpansionHeader = `# Query Expansion

Expand the search query below into semantic keys likely to address
stored memory chunks. Each key is three segments joined by " ~ ".`

const queryExpansionOutputFormat = `## Output Format

Respond with JSON only:

{"keys": ["subject ~ predicate ~ object"], "reasoning": "..."}`

// BuildQueryExpansionPrompt assembles the query-expansion prompt.
func BuildQueryExpansionPrompt(query string, existingKeys []string) string {
	var b strings.Builder
	b.WriteString(queryExpansionHeader)
	b.WriteString("\n\n## Query\n\n")
	b.WriteString(query)
	b.WriteString("\n\n## Existing Keys\n\n")
	b.WriteString(renderKeys(firstN(existingKeys, maxQueryKeys)))
	b.WriteString("\n\nPrefer keys from the existing list; invent new ones only when nothing fits.\n\n")
	b.WriteString(queryExpansionOutputFormat)
	return b.String()
}

func renderKeys(keys []string) string {
	if len(keys) == 0 {
		return "(none yet)"
	}
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(k)
	}
	return b.String()
}

func lastN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
