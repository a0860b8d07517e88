package domain

import "sort"

// Selection es la elección en curso del comprador: eje de variación → valor.
// Vive sólo durante la visita a la página de producto, nunca se persiste.
type Selection map[string]string

// Clone devuelve una copia independiente (las funciones de resolución no
// mutan sus entradas).
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// AvailableValues calcula qué valores de `kind` siguen siendo elegibles dada
// la selección parcial actual. Sólo cuentan variaciones con stock: una
// variación agotada es invisible, igual que si la combinación no existiera.
//
// El valor ya elegido para `kind` no restringe su propia lista de opciones.
// El resultado viene ordenado ascendente para que la UI sea reproducible.
func AvailableValues(variations []Variation, kind string, sel Selection) []string {
	rest := sel.Clone()
	delete(rest, kind)

	seen := map[string]struct{}{}
	values := []string{}
	for _, v := range variations {
		if v.Stock <= 0 {
			continue
		}
		if !v.Matches(rest) {
			continue
		}
		val, ok := v.Attributes[kind]
		if !ok || val == "" {
			continue
		}
		if _, dup := seen[val]; dup {
			continue
		}
		seen[val] = struct{}{}
		values = append(values, val)
	}
	sort.Strings(values)
	return values
}

// ResolveVariation busca la única variación con stock que satisface una
// selección completa. `requiredKinds` es el umbral de completitud que decide
// el llamador (ver ResolverConfig): con menos pares elegidos devuelve
// ErrIncompleteSelection sin intentar adivinar.
//
// Si la invariante de unicidad de combinaciones se rompiera alguna vez, gana
// la primera variación en orden de lista (determinístico).
func ResolveVariation(variations []Variation, sel Selection, requiredKinds int) (*Variation, error) {
	if len(sel) < requiredKinds {
		return nil, ErrIncompleteSelection
	}
	for i := range variations {
		v := &variations[i]
		if v.Stock <= 0 {
			continue
		}
		if v.Matches(sel) {
			return v, nil
		}
	}
	return nil, ErrNoMatchingVariation
}

// ResolverConfig decide cuántos ejes tiene que cubrir una selección para
// considerarse completa.
//
// El sistema original usaba un piso fijo de 2 ejes elegidos, no "todos los
// ejes del producto": con productos de 3 ejes eso permite resolver con un eje
// sin elegir. Se mantiene como modo legacy porque hay catálogos que dependen
// de ese comportamiento; el modo estricto exige todos los ejes declarados.
type ResolverConfig struct {
	Strict   bool
	MinKinds int
}

// RequiredKinds devuelve el umbral aplicable a un producto concreto.
func (c ResolverConfig) RequiredKinds(p *Product) int {
	if c.Strict {
		return p.KindCount()
	}
	min := c.MinKinds
	if min <= 0 {
		min = 2
	}
	return min
}
