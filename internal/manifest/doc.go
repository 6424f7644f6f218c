// Package manifest loads the environment listing: the file that maps every
// target environment to the manifest it is built from, the schema registry
// directory it is validated against and the path the bundle is written to.
//
// # Listing Format
//
// Listings can be written in JSON or YAML:
//
//	{
//	    "environments": {
//	        "dev": {
//	            "output": "build/dev/bundle.json",
//	            "target": "specs/manifest/dev.json",
//	            "schemaDb": "specs/schema/database"
//	        }
//	    },
//	    "options": {"concurrency": 4, "indent": 4}
//	}
//
// A document without the "environments" key is read as a flat map of
// environment name to entry.
//
// # Usage
//
//	loader := manifest.NewLoader()
//	listing, err := loader.Load("environments.json")
//	if err != nil {
//	    return err
//	}
//	env, err := listing.Environment("dev")
//
// Entries are validated one at a time with Environment.Validate so a broken
// entry only fails its own environment.
package manifest
