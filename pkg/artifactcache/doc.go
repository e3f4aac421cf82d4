// Package artifactcache serves the GitHub Actions cache protocol from a local
// directory, so the restore steps can run outside of GitHub and be tested end
// to end.
//
// Inspired by https://github.com/sp-ricard-valverde/github-act-cache-server
//
// TODO: Force deleting cache entries, see https://docs.github.com/en/actions/using-workflows/caching-dependencies-to-speed-up-workflows#force-deleting-cache-entries
package artifactcache
