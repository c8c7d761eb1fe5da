package federation

// Node type names from the tree-sitter javascript grammar. The typescript
// grammar is a superset; wrapper kinds (as_expression and friends) are
// handled by ast.UnwrapExpression before these names are compared.
//
// Shapes the matchers care about:
//
//	new ModuleFederationPlugin({...})
//	  new_expression
//	    constructor: identifier | member_expression
//	    arguments: arguments [object]
//
//	export default defineConfig({...})
//	  export_statement
//	    [call_expression function: identifier arguments: [object | arrow_function]]
//
//	module.exports = createModuleFederationConfig({...})
//	  expression_statement
//	    assignment_expression
//	      left: member_expression   right: call_expression
//
//	{ remotes: { app1: 'app1@http://...' } }
//	  object
//	    pair key: property_identifier | string   value: expression
const (
	nodeString            = "string"
	nodeTemplateString    = "template_string"
	nodeTemplateSub       = "template_substitution"
	nodeIdentifier        = "identifier"
	nodePropertyIdent     = "property_identifier"
	nodeShorthandProperty = "shorthand_property_identifier"
	nodeMemberExpression  = "member_expression"
	nodeCallExpression    = "call_expression"
	nodeNewExpression     = "new_expression"
	nodeTernaryExpression = "ternary_expression"
	nodeBinaryExpression  = "binary_expression"
	nodeParenthesized     = "parenthesized_expression"
	nodeObject            = "object"
	nodeArray             = "array"
	nodePair              = "pair"
	nodeArrowFunction     = "arrow_function"
	nodeStatementBlock    = "statement_block"
	nodeReturnStatement   = "return_statement"
	nodeExportStatement   = "export_statement"
	nodeAssignment        = "assignment_expression"
	nodeTrue              = "true"
	nodeFalse             = "false"
)
