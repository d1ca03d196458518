// Package ingestion turns markdown documents into knowledge base records.
//
// A document is split into sections with SplitMarkdown, each section's
// paragraphs into sentences with SplitSentences. The Pipeline then:
//   - creates the heading path of each section beneath ROOT
//   - annotates every sentence and stores its entities
//   - stores the sentences with inline entity markup, which indexes their
//     entity occurrences
//   - classifies sentence frames asynchronously on a worker pool
//
// Errors during asynchronous frame classification are logged but do not fail
// the ingestion. Sentences left without frames can be classified later with
// the reframe package.
package ingestion
