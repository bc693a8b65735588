// Package matching resolves remote release records to local albums. Matching
// is conservative: a record that resolves to more than one album is reported
// as ambiguous and contributes nothing unless a Resolver explicitly picks a
// candidate.
package matching
