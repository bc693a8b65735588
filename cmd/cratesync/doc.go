// Command cratesync syncs Gazelle tracker collages, bookmarks, and tag sets
// into collections on a local music server.
package main
