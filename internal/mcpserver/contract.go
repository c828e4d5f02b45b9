package mcpserver

// SourcesHeading separates the answer from its source list.
const SourcesHeading = "Sources:"

// AnswerFormat describes the text returned by the ask_docs tool.
const AnswerFormat = `# vectorfox Answer Format

` + "`ask_docs`" + ` returns plain text in two parts.

1. **Answer.** Markdown exactly as generated by the answer service. Chunks
   are concatenated in arrival order; an empty chunk becomes a paragraph
   break. Raw HTML may appear and is not sanitised.
2. **Sources.** A line reading ` + "`" + SourcesHeading + "`" + ` followed by one
   ` + "`- <url>`" + ` line per source, in the order the service returned them.
   Duplicates are kept. The list may be empty.

## Example

` + "```" + `text
Use the **Browser Console** to inspect errors.

Open it with Ctrl+Shift+J.

Sources:
- https://firefox-source-docs.mozilla.org/devtools-user/browser_console/
` + "```" + `

Use ` + "`list_sources`" + ` when only the URLs are needed; it returns a JSON array.
`
