/*
Package store holds the client-side mirrors of server state.

Collection keeps one page (or all) of a collection together with its count,
page index and filter. Object keeps a single document such as the
settings. Owned is a Collection bound to one user, used for audits,
sessions, devices and SSH certificates.

Stores change only in Callback, on the loop goroutine, and notify their
listeners once per handled action through a deferred emit. Getters take a
read lock and return copies, so they are safe from any goroutine. Entities
with a Clone method are copied deeply, on sync and on every read.

The page index is clamped to [0, pages-1] on every sync and traverse. A
filter change resets the page to 0 according to the ResetPolicy: with
FilterResetKey only a change of the key field does, with FilterResetQuery
any change does.
*/
package store
