/*
Package migrate moves the data directory from one volume to another.

A migration enumerates the files whose names end with one of the engine's
movable extensions, moves them one at a time into the same relative location
under the destination, and only then commits the destination as the
configured path:

	m := migrate.NewMigrator(eng, store)
	if err := m.Move("/media/usb/datavol/", "/home/me/.local/share/datavol/"); err != nil {
		var moveErr *migrate.MoveError
		if errors.As(err, &moveErr) {
			// moveErr.File failed; the configured path is unchanged
		}
	}

Each file is renamed when source and destination share a filesystem and
copied, synced and verified otherwise.

The first failure stops the run. Files already placed at the destination
are deleted, but files already taken from the source are not restored, so a
failed migration can leave part of the data set missing from both sides.
A destination file whose source is already gone is never deleted.
Every run, successful or not, is stored in the migration history.
*/
package migrate
