// Package llm asks a language model to assess discovered work items against a
// source item. It supports Anthropic and OpenAI, with retry logic, rate
// limiting, and response caching. Responses follow a JSON contract; free text
// is never scraped for labels.
package llm
