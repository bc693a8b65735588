// Package groupsync reconciles remote groupings with library collections.
// Membership is monotonic: syncs add albums and never remove them, so manual
// additions and albums dropped remotely both stay in place.
package groupsync
