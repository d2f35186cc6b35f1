package jack

import "fmt"

// ----------------------------------------------------------------------------
// Type checking errors

type UnknownNameError struct{ Name string }

func (e UnknownNameError) Error() string { return fmt.Sprintf("unknown name '%s'", e.Name) }

type FieldUsedInFunctionError struct{ Name string }

func (e FieldUsedInFunctionError) Error() string {
	return fmt.Sprintf("cannot use field '%s' inside a function (no receiver is available)", e.Name)
}

type WrongReturnShapeError struct{ Expected, Got string }

func (e WrongReturnShapeError) Error() string {
	return fmt.Sprintf("wrong return shape: expected %s, got %s", e.Expected, e.Got)
}

type UndeclaredMethodCallError struct{ Name string }

func (e UndeclaredMethodCallError) Error() string {
	return fmt.Sprintf("'%s' is not a declared method of the current class", e.Name)
}

// ----------------------------------------------------------------------------
// Type checker

// TypeChecker walks a whole 'jack.Program' ahead of lowering, re-using the same
// scope table the lowerer builds, to surface symbol-resolution and return-shape
// errors (§4.3/§4.4) before any VM code is emitted.
type TypeChecker struct {
	program Program
	scopes  ScopeTable // Keeps track of the scopes and declared variables inside each one

	class     string         // Name of the class currently being checked
	subType   SubroutineType // Variant of the subroutine currently being checked
	subReturn DataType       // Declared return type of the subroutine currently being checked
}

func NewTypeChecker(program Program) TypeChecker {
	return TypeChecker{program: program}
}

func (tc *TypeChecker) Check() (bool, error) {
	if tc.program == nil {
		return false, fmt.Errorf("the given 'program' is empty or nil")
	}

	for name, class := range tc.program {
		_, err := tc.HandleClass(class)
		if err != nil {
			return false, fmt.Errorf("error type-checking class '%s': %w", name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Class' and nested fields.
func (tc *TypeChecker) HandleClass(class Class) (bool, error) {
	tc.scopes.PushClassScope(class.Name) // Keep track of the current scope being processed
	defer tc.scopes.PopClassScope()      // Reset the function name after processing
	tc.class = class.Name

	for _, field := range class.Fields.Entries() {
		if _, err := tc.HandleVarStmt(VarStmt{Vars: []Variable{field}}); err != nil {
			return false, fmt.Errorf("error handling field '%s' in class '%s': %w", field.Name, class.Name, err)
		}
	}

	for _, subroutine := range class.Subroutines.Entries() {
		_, err := tc.HandleSubroutine(subroutine)
		if err != nil {
			return false, fmt.Errorf("error handling subroutine '%s' in class '%s': %w", subroutine.Name, class.Name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Subroutine' and nested fields.
func (tc *TypeChecker) HandleSubroutine(subroutine Subroutine) (bool, error) {
	tc.scopes.PushSubRoutineScope(subroutine.Name) // Keep track of the current subroutine function being processed
	defer tc.scopes.PopSubroutineScope()           // Reset the function name after processing

	tc.subType = subroutine.Type
	tc.subReturn = subroutine.Return

	if subroutine.Type == Method {
		// Same synthetic receiver the lowerer registers; kept here purely so field
		// accesses resolve the same way during checking as they do during emission.
		tc.scopes.RegisterVariable(Variable{Name: "__obj", VarType: Parameter, DataType: DataType{Main: Object}})
	}

	for _, arg := range subroutine.Arguments.Entries() {
		tc.scopes.RegisterVariable(arg)
	}

	for _, stmt := range subroutine.Statements {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling nested statement %T: %w", stmt, err)
		}
	}

	return true, nil
}

func (tc *TypeChecker) HandleVarStmt(statement VarStmt) (bool, error) {
	for _, v := range statement.Vars {
		tc.scopes.RegisterVariable(v)
	}
	return true, nil
}

// Generalized function to type-check multiple statements types.
func (tc *TypeChecker) HandleStatement(stmt Statement) (bool, error) {
	switch tStmt := stmt.(type) {
	case VarStmt:
		return tc.HandleVarStmt(tStmt)
	case DoStmt:
		return tc.HandleFuncCallExpr(tStmt.FuncCall)
	case LetStmt:
		return tc.HandleLetStmt(tStmt)
	case IfStmt:
		return tc.HandleIfStmt(tStmt)
	case WhileStmt:
		return tc.HandleWhileStmt(tStmt)
	case ReturnStmt:
		return tc.HandleReturnStmt(tStmt)
	default:
		return false, fmt.Errorf("unrecognized statement: %T", stmt)
	}
}

func (tc *TypeChecker) HandleLetStmt(statement LetStmt) (bool, error) {
	if _, err := tc.HandleExpression(statement.Lhs); err != nil {
		return false, fmt.Errorf("error handling assignment target: %w", err)
	}
	if _, err := tc.HandleExpression(statement.Rhs); err != nil {
		return false, fmt.Errorf("error handling assigned value: %w", err)
	}
	return true, nil
}

func (tc *TypeChecker) HandleIfStmt(statement IfStmt) (bool, error) {
	if _, err := tc.HandleExpression(statement.Condition); err != nil {
		return false, fmt.Errorf("error handling condition: %w", err)
	}
	for _, s := range statement.ThenBlock {
		if _, err := tc.HandleStatement(s); err != nil {
			return false, err
		}
	}
	for _, s := range statement.ElseBlock {
		if _, err := tc.HandleStatement(s); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (tc *TypeChecker) HandleWhileStmt(statement WhileStmt) (bool, error) {
	if _, err := tc.HandleExpression(statement.Condition); err != nil {
		return false, fmt.Errorf("error handling condition: %w", err)
	}
	for _, s := range statement.Block {
		if _, err := tc.HandleStatement(s); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (tc *TypeChecker) HandleReturnStmt(statement ReturnStmt) (bool, error) {
	isVoid, hasExpr := tc.subReturn.Main == Void, statement.Expr != nil

	if isVoid && hasExpr {
		return false, WrongReturnShapeError{Expected: "no expression (void subroutine)", Got: "return with an expression"}
	}
	if !isVoid && !hasExpr {
		return false, WrongReturnShapeError{Expected: "an expression", Got: "bare return"}
	}

	if hasExpr {
		return tc.HandleExpression(statement.Expr)
	}
	return true, nil
}

// Generalized function to type-check multiple expression types.
func (tc *TypeChecker) HandleExpression(expr Expression) (bool, error) {
	switch tExpr := expr.(type) {
	case VarExpr:
		return tc.HandleVarExpr(tExpr)
	case LiteralExpr:
		return true, nil
	case ArrayExpr:
		return tc.HandleArrayExpr(tExpr)
	case UnaryExpr:
		return tc.HandleExpression(tExpr.Rhs)
	case BinaryExpr:
		if _, err := tc.HandleExpression(tExpr.Lhs); err != nil {
			return false, err
		}
		return tc.HandleExpression(tExpr.Rhs)
	case FuncCallExpr:
		return tc.HandleFuncCallExpr(tExpr)
	default:
		return false, fmt.Errorf("unrecognized expression: %T", expr)
	}
}

func (tc *TypeChecker) HandleVarExpr(expr VarExpr) (bool, error) {
	if expr.Var == "this" {
		return true, nil
	}

	_, variable, err := tc.scopes.ResolveVariable(expr.Var)
	if err != nil {
		return false, UnknownNameError{Name: expr.Var}
	}

	if variable.VarType == Field && tc.subType == Function {
		return false, FieldUsedInFunctionError{Name: expr.Var}
	}

	return true, nil
}

func (tc *TypeChecker) HandleArrayExpr(expr ArrayExpr) (bool, error) {
	if _, err := tc.HandleVarExpr(VarExpr{Var: expr.Var}); err != nil {
		return false, err
	}
	return tc.HandleExpression(expr.Index)
}

func (tc *TypeChecker) HandleFuncCallExpr(expr FuncCallExpr) (bool, error) {
	for _, arg := range expr.Arguments {
		if _, err := tc.HandleExpression(arg); err != nil {
			return false, fmt.Errorf("error handling call argument: %w", err)
		}
	}

	if !expr.IsExtCall {
		class, exists := tc.program[tc.class]
		if !exists {
			return false, fmt.Errorf("class '%s' not found", tc.class)
		}
		routine, exists := class.Subroutines.Get(expr.FuncName)
		if !exists || routine.Type != Method {
			return false, UndeclaredMethodCallError{Name: expr.FuncName}
		}
		return true, nil
	}

	// Qualified call: either 'variable.method(...)' (receiver in scope) or
	// 'ClassName.function(...)' (receiver names a known class).
	if _, _, err := tc.scopes.ResolveVariable(expr.Var); err == nil {
		return true, nil
	}
	if _, exists := tc.program[expr.Var]; exists {
		return true, nil
	}

	return false, UnknownNameError{Name: expr.Var}
}
