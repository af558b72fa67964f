// Package config loads, normalizes, validates and saves notesort
// configuration.
//
// The file is TOML with four sections: [vault] (where documents live),
// [sort] (the classification settings the reclassifier reads on every
// notification), [daemon] and [logging]. The [sort] section is also the
// settings surface: SetOption/GetOption expose its recognised options by
// name, and Live lets the daemon mutate it while notifications are being
// processed. The task counter is persisted here as well.
package config
