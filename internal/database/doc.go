// Package database provides the connection pool and the data access layer.
//
// # Architecture
//
// The catalogue schema is not fixed: the same logical tables have been
// deployed under several naming conventions over time (ID_EDITORIAL vs
// ID_VAREDIT, FECHA_PUBLICACION vs ANO_PUBL, a differently named audit table).
// Names are therefore discovered at runtime instead of being pinned in code:
//
//	database/
//	├── database.go    # pool, Query/QueryRow/Exec, Transaction
//	├── dialect.go     # sqlite and postgres SQL fragments
//	├── catalog/       # metadata lookups (tables, columns, FKs, sequences)
//	├── query/         # descriptors, name resolution, statement building
//	├── crud/          # generic list/get/create/update/delete over a descriptor
//	├── books/ ...     # one sub-package per entity
//	└── dbtest/        # schema variants for tests
//
// # Using Sub-packages
//
// Each entity sub-package declares a query.Descriptor and a Repository:
//
//	db, err := database.NewDatabase(cfg.Database)
//	repo := publishers.NewRepository(db)
//	id, err := repo.Create(ctx, query.Fields{"NOMBRE": "Acme", "ANO_EDICION": "1999"})
//	row, err := repo.Get(ctx, id)
//
// Rows come back as database.Row, keyed by the descriptor's logical names
// whatever the physical column is called.
package database
