// Package state provides a small central state container in the style of
// flux stores: the state is a single JSON shaped tree, it only changes
// through registered mutations, actions group mutations, and subscribers
// observe every committed mutation.
//
// Commits are serialized. A commit holds the container lock while the
// mutation runs and while subscribers are notified, so subscribers observe
// mutations in commit order. Plugins (see Plugin) are run once by New and are
// the extension point used by the persist package.
package state
