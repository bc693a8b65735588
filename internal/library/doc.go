// Package library defines the media-library capability cratesync consumes
// and provides the Plex HTTP implementation.
//
// The Service interface covers the four operations the sync engine needs:
// incremental album enumeration, track file listing, and collection
// lookup/create/extend. Album folder paths come from the first track's
// media part, matching how Plex reports album storage locations.
package library
