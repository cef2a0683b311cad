// Package git reads source-control facts about the project being built,
// currently the HEAD revision recorded with every run result.
package git
