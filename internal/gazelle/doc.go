// Package gazelle implements the site API client: a rate-limited, retrying
// HTTP layer plus fetchers for collages, bookmarks, and filename search.
//
// Failures are classified into three sentinel errors. ErrRemoteUnavailable
// covers transport and server errors that survived retries, ErrRemoteRejected
// covers refusals such as bad credentials, and ErrRemoteNotFound covers
// missing resources. Callers use errors.Is to pick a recovery strategy.
package gazelle
