// Package feed drives incremental loading of post feeds.
//
// A [Controller] owns one pagination cursor at a time. Each fetch captures the
// cursor's generation when it is issued and is only applied if that generation
// is still current when it completes; resets and navigation bump the generation
// so late responses are dropped instead of clobbering newer state.
package feed
