package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    dst TEXT UNIQUE NOT NULL,
    identity TEXT NOT NULL,
    name TEXT NOT NULL,
    time REAL NOT NULL,
    created_at REAL NOT NULL,
    updated_at REAL NOT NULL,
    rank REAL NOT NULL DEFAULT 0,
    removed INTEGER NOT NULL DEFAULT 0,
    announce_alpha REAL,
    announce_beta REAL,
    announce_window_seconds REAL,
    announce_k_events INTEGER
);
CREATE INDEX IF NOT EXISTS idx_nodes_identity ON nodes(identity);
CREATE INDEX IF NOT EXISTS idx_nodes_time ON nodes(time);

CREATE TABLE IF NOT EXISTS peers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    dst TEXT UNIQUE NOT NULL,
    identity TEXT NOT NULL,
    name TEXT NOT NULL,
    time REAL NOT NULL,
    created_at REAL NOT NULL,
    updated_at REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_peers_identity ON peers(identity);
CREATE INDEX IF NOT EXISTS idx_peers_time ON peers(time);

CREATE TABLE IF NOT EXISTS citations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    src_address TEXT NOT NULL,
    target_address TEXT NOT NULL,
    removed INTEGER NOT NULL DEFAULT 0,
    created_at REAL NOT NULL,
    UNIQUE(target_address, src_address)
);
CREATE INDEX IF NOT EXISTS idx_citations_target ON citations(target_address);
CREATE INDEX IF NOT EXISTS idx_citations_src ON citations(src_address);

CREATE TABLE IF NOT EXISTS crawl_visited_urls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    created_at REAL NOT NULL,
    last_visited_at REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visited_last_visited ON crawl_visited_urls(last_visited_at);

CREATE TABLE IF NOT EXISTS search_queries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    query_text TEXT NOT NULL,
    created_at REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_queries_created ON search_queries(created_at);

CREATE TABLE IF NOT EXISTS user_search_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    remote_identity TEXT NOT NULL,
    query TEXT NOT NULL,
    time REAL NOT NULL,
    created_at REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_identity ON user_search_history(remote_identity);
CREATE INDEX IF NOT EXISTS idx_history_identity_time ON user_search_history(remote_identity, time);
`
