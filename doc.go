// Package fastcli turns typed handler declarations into command-line
// subcommands.
//
// Each parameter of a handler is declared with a raw Type. At registration
// the type is compiled into a Descriptor, one of a closed set of shapes:
//
//   - Primitive: int, float, string or bool
//   - Enum: a value chosen by member name
//   - Optional: a primitive or nothing
//   - Sequence: a homogeneous list, fixed (N tokens), variadic or empty
//   - Union: primitives tried left to right
//
// Anything else (maps, nested containers, heterogeneous tuples) is rejected
// with FASTCLI_UNSUPPORTED_TYPE before the program runs.
//
// # Declaring commands
//
//	func greet(args *fastcli.Args) (any, error) {
//		for i := 0; i < args.Int("times"); i++ {
//			fmt.Println("hello", args.String("name"))
//		}
//		return nil, nil
//	}
//
//	app, err := fastcli.New("tool")
//	if err != nil {
//		log.Fatal(err)
//	}
//	app.MustAddCommand(fastcli.Func(greet,
//		fastcli.Param("name", fastcli.String()),
//		fastcli.Param("times", fastcli.Int()).Default(1),
//		fastcli.Param("color", fastcli.EnumOf("Color", "red", "green", "blue")).Default("red"),
//		fastcli.Param("loud", fastcli.Bool()).Default(false),
//	), fastcli.Aliases("g"))
//	app.Main()
//
// Required parameters (no default) are positional in declaration order;
// parameters with a default are options written --name value. A bool with a
// false default is a bare --name flag. Sequences take several tokens:
//
//	tool greet bob --times 3 --loud
//
// A sequence option collects every value token up to the next option, so
// positionals go before it: "run 7 --pair 1 2", not "run --pair 1 2 7".
// Single-dash tokens other than -h and negative numbers are rejected.
//
// # Values
//
// Handlers receive an Args keyed by parameter name: int, float64, string,
// bool, EnumMember, typed slices for variadic sequences and [N]T arrays for
// fixed ones. Args.Bind copies values into typed variables in one pass.
//
// # Command tree
//
// AddCommand and AddGroup build an arbitrarily deep tree. Execute walks it
// token by token; a missing or unknown subcommand is FASTCLI_UNRESOLVED_COMMAND.
// The first Execute seals the tree.
//
// # Ambient defaults
//
// With WithEnvPrefix and WithDefaultsFile an optional parameter not given on
// the command line is read from PREFIX_<PATH>_<PARAM> or from a YAML file
// keyed by command path, before falling back to its declared default.
//
// # Errors and exit codes
//
// Every error carries a go-errors code (ErrorCode). Run maps usage errors to
// exit code 2 and handler errors to 1; help exits 0.
//
// # Audit
//
// WithAudit records each invocation (command_invoked, command_failed,
// usage_error) to SQLite or to a rotating JSONL file. The fastcli command in
// cmd/fastcli queries, summarizes and cleans the trail.
package fastcli
