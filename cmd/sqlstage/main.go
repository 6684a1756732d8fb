// Command sqlstage inspects a relational schema and writes staged records
// to it through the sqlstage persistence session.
package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

var baseCfg = new(struct {
	Config string `long:"config" short:"c" env:"SQLSTAGE_CONFIG" default:"sqlstage.yaml" description:"Path to the YAML configuration file"`
	Log    struct {
		Level  string `long:"level" env:"LEVEL" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Override logging.level"`
		Format string `long:"format" env:"FORMAT" choice:"json" choice:"console" description:"Override logging.format"`
	} `group:"Logging" namespace:"log" env-namespace:"SQLSTAGE_LOG"`
})

func main() {
	parser := flags.NewParser(baseCfg, flags.Default)
	parser.LongDescription = `sqlstage reads the catalog of a PostgreSQL, MySQL, SQLite or Oracle
database and writes records to it in foreign key order.

Every sub-command reads the configuration file named by --config. See the
--help page of each sub-command for usage.`

	mustAddCmd(parser.Command, "inspect", "Print the introspected schema", `
Print tables in dependency order, with their columns and foreign keys,
followed by the sequences of the database.

Relationships declared in the configuration file are applied first.
`, &cmdInspect{})

	mustAddCmd(parser.Command, "load", "Write records from a file", `
Stage the records of a YAML or JSON file and flush them in one transaction.

Each entry names an entity type, an operation and the property values:

>  - type: person
>    op: insert
>    values: {id: 7, name: Ada, born: 1815-12-10}
>  - type: person
>    op: delete
>    values: {id: 3}

Updates and deletes load the current row by identifier first, so their
values must include every identifier column. With --dry-run the flush
runs and is rolled back.
`, &cmdLoad{})

	mustAddCmd(parser.Command, "serve", "Serve the schema over HTTP", `
Serve the introspected schema as JSON, with /healthz and Prometheus
/metrics, until interrupted.
`, &cmdServe{})

	mustAddCmd(parser.Command, "ddl", "Print the SQL a dialect uses", `
Print the catalog queries and the temporary join table DDL of a dialect.
No database connection is made.
`, &cmdDDL{})

	mustAddCmd(parser.Command, "print-config", "Print the effective configuration", `
Print the configuration file merged with defaults, as YAML.
`, &cmdPrintConfig{})

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func mustAddCmd(cmd *flags.Command, name, short, long string, data interface{}) {
	if _, err := cmd.AddCommand(name, short, long, data); err != nil {
		panic(err)
	}
}
