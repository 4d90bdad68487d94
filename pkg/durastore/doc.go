/*
Package durastore is the durable system of record: the Site table the
registry API mutates, and the append-only SiteStatus table the
Coordinator Scheduler writes one row to per worker per consensus tick,
plus one aggregate row carrying workerId "consensus_worker".

Store is backed by Postgres via jackc/pgx/v5 (driver) and
jmoiron/sqlx (query binding). Status rows are never updated
or deleted individually; only a site's full history is pruned when the
site itself is deleted.
*/
package durastore
