// Package sitetags maps local albums to their remote groups by filename
// search and builds collections from the recorded tags. Scanning is the
// expensive half and runs incrementally; building reads only the local store.
package sitetags
